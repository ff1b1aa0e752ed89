package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"recordbin/domain/ownership"
	"recordbin/domain/record"
	"recordbin/domain/snapshot"
	"recordbin/logging"
	"recordbin/trash"
	"recordbin/validation"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

// Engine 单个记录族对外暴露的引擎操作
type Engine[R, S any] interface {
	Kind() record.Family
	ListLive(ctx context.Context, actor record.Actor, q record.ListQuery) ([]*R, error)
	GetLive(ctx context.Context, id int64, actor record.Actor) (*R, error)
	Trash(ctx context.Context, id int64, actor record.Actor) error
	Restore(ctx context.Context, archiveID int64, actor record.Actor) (int64, error)
	Purge(ctx context.Context, archiveID int64, actor record.Actor) error
	Bulk(ctx context.Context, action ownership.Action, ids []int64, actor record.Actor) (trash.BulkResult, error)
	ListTrash(ctx context.Context, actor record.Actor, q snapshot.TrashQuery) (snapshot.Page, error)
	ViewArchive(ctx context.Context, archiveID int64, actor record.Actor) (trash.ArchivedView[S], error)
	Resolve(ctx context.Context, id int64, actor record.Actor) (trash.RecordView, error)
	Preview(draft S) trash.RecordView
}

type familyHandler[R, S any] struct {
	engine   Engine[R, S]
	logger   logging.Logger
	pageSize int
}

// mountFamily 注册一个记录族的全部路由
func mountFamily[R, S any](r chi.Router, path string, engine Engine[R, S], logger logging.Logger, pageSize int) {
	h := &familyHandler[R, S]{
		engine:   engine,
		logger:   logger.WithFields(logging.String("family", string(engine.Kind()))),
		pageSize: pageSize,
	}
	r.Route(path, func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/bulk", h.bulk)
		r.Post("/preview", h.preview)
		r.Get("/resolve/{id}", h.resolve)

		r.Route("/trash", func(r chi.Router) {
			r.Get("/", h.listTrash)
			r.Get("/{archiveID}", h.viewArchive)
			r.Delete("/{archiveID}", h.purge)
			r.Post("/{archiveID}/restore", h.restore)
		})

		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.trash)
	})
}

func (h *familyHandler[R, S]) list(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", record.DefaultListLimit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	q := record.ListQuery{Limit: limit, Offset: offset}.Normalize()

	items, err := h.engine.ListLive(r.Context(), actorOf(r), q)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []*R{}
	}
	respondJSON(w, r, h.logger, http.StatusOK, listResponse[*R]{Items: items, Limit: q.Limit, Offset: q.Offset})
}

func (h *familyHandler[R, S]) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	rec, err := h.engine.GetLive(r.Context(), id, actorOf(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, r, h.logger, http.StatusOK, rec)
}

func (h *familyHandler[R, S]) trash(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.engine.Trash(r.Context(), id, actorOf(r)); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *familyHandler[R, S]) bulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	action, err := trash.ParseAction(req.Action)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	res, err := h.engine.Bulk(r.Context(), action, req.IDs, actorOf(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, r, h.logger, http.StatusOK, res)
}

func (h *familyHandler[R, S]) listTrash(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	q := snapshot.TrashQuery{Q: r.URL.Query().Get("q"), Page: page, PageSize: h.pageSize}
	res, err := h.engine.ListTrash(r.Context(), actorOf(r), q)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, r, h.logger, http.StatusOK, toTrashPage(res))
}

func (h *familyHandler[R, S]) viewArchive(w http.ResponseWriter, r *http.Request) {
	archiveID, err := pathID(r, "archiveID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	view, err := h.engine.ViewArchive(r.Context(), archiveID, actorOf(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, r, h.logger, http.StatusOK, toViewResponse[R, S](view))
}

func (h *familyHandler[R, S]) restore(w http.ResponseWriter, r *http.Request) {
	archiveID, err := pathID(r, "archiveID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	id, err := h.engine.Restore(r.Context(), archiveID, actorOf(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, r, h.logger, http.StatusOK, restoreResponse{ID: id})
}

func (h *familyHandler[R, S]) purge(w http.ResponseWriter, r *http.Request) {
	archiveID, err := pathID(r, "archiveID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.engine.Purge(r.Context(), archiveID, actorOf(r)); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *familyHandler[R, S]) resolve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	view, err := h.engine.Resolve(r.Context(), id, actorOf(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, r, h.logger, http.StatusOK, toViewResponse[R, S](view))
}

// preview 草稿载荷使用与归档相同的宽松解码
func (h *familyHandler[R, S]) preview(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, r, h.logger, badRequest("invalid request body"))
		return
	}
	draft, err := snapshot.Decode[S](body)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, r, h.logger, http.StatusOK, toViewResponse[R, S](h.engine.Preview(draft)))
}

func actorOf(r *http.Request) record.Actor {
	a, _ := ActorFrom(r.Context())
	return a
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid " + name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("invalid query parameter " + name)
	}
	return n, nil
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}
