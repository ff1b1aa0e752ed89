package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"recordbin/domain/record"
)

// Marshal 编码为 JSON，时间以纳秒时间戳传输
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(toWire(e))
}

// Unmarshal 解码 Marshal 的输出
func Unmarshal(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return w.event()
}

// Values 编码为扁平字段（Redis Stream 条目）
func Values(e Event) map[string]any {
	w := toWire(e)
	return map[string]any{
		"id":          w.ID,
		"kind":        w.Kind,
		"family":      w.Family,
		"record_id":   w.RecordID,
		"archive_id":  w.ArchiveID,
		"actor_id":    w.ActorID,
		"label":       w.Label,
		"occurred_at": w.OccurredAt,
	}
}

// FromValues 解码 Values 的输出。Redis 返回的字段值均为字符串
func FromValues(values map[string]any) (Event, error) {
	var w wireEvent
	w.ID = stringValue(values["id"])
	w.Kind = stringValue(values["kind"])
	w.Family = stringValue(values["family"])
	w.Label = stringValue(values["label"])

	var err error
	if w.RecordID, err = int64Value(values["record_id"]); err != nil {
		return Event{}, fmt.Errorf("decode record_id: %w", err)
	}
	if w.ArchiveID, err = int64Value(values["archive_id"]); err != nil {
		return Event{}, fmt.Errorf("decode archive_id: %w", err)
	}
	if w.ActorID, err = int64Value(values["actor_id"]); err != nil {
		return Event{}, fmt.Errorf("decode actor_id: %w", err)
	}
	if w.OccurredAt, err = int64Value(values["occurred_at"]); err != nil {
		return Event{}, fmt.Errorf("decode occurred_at: %w", err)
	}
	return w.event()
}

type wireEvent struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Family     string `json:"family"`
	RecordID   int64  `json:"record_id"`
	ArchiveID  int64  `json:"archive_id"`
	ActorID    int64  `json:"actor_id"`
	Label      string `json:"label,omitempty"`
	OccurredAt int64  `json:"occurred_at"`
}

func toWire(e Event) wireEvent {
	ts := e.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return wireEvent{
		ID:         e.ID,
		Kind:       string(e.Kind),
		Family:     string(e.Family),
		RecordID:   e.RecordID,
		ArchiveID:  e.ArchiveID,
		ActorID:    e.ActorID,
		Label:      e.Label,
		OccurredAt: ts.UnixNano(),
	}
}

func (w wireEvent) event() (Event, error) {
	if w.Kind == "" {
		return Event{}, fmt.Errorf("decode event: missing kind")
	}
	family, err := record.ParseFamily(w.Family)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         w.ID,
		Kind:       Kind(w.Kind),
		Family:     family,
		RecordID:   w.RecordID,
		ArchiveID:  w.ArchiveID,
		ActorID:    w.ActorID,
		Label:      w.Label,
		OccurredAt: time.Unix(0, w.OccurredAt).UTC(),
	}, nil
}

func stringValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func int64Value(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case string:
		if x == "" {
			return 0, nil
		}
		return strconv.ParseInt(x, 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
