package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"recordbin/activity"
	"recordbin/app"
	"recordbin/domain/ownership"
	"recordbin/domain/record"
	"recordbin/domain/snapshot"
	"recordbin/trash"
)

// NewTrashCommand 把在线记录移入回收站
func NewTrashCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trash <family> <id>...",
		Short: "Move live records to the trash",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulk(cmd, rootOpts, ownership.ActionTrash, args)
		},
	}
}

// NewPurgeCommand 彻底删除归档
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <family> <archive-id>...",
		Short: "Permanently delete archived records",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulk(cmd, rootOpts, ownership.ActionPurge, args)
		},
	}
}

func runBulk(cmd *cobra.Command, opts *RootOptions, action ownership.Action, args []string) error {
	family, err := record.ParseFamily(args[0])
	if err != nil {
		return err
	}
	ids, err := parseIDs(args[1:])
	if err != nil {
		return err
	}
	return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
		ops, err := a.Operations(family)
		if err != nil {
			return err
		}
		// 单条时返回真实错误，多条时按批量语义汇总
		if len(ids) == 1 {
			if err := single(ctx, ops, action, ids[0], opts.Actor()); err != nil {
				return err
			}
			return output(cmd, opts, trash.BulkResult{Total: 1, SuccessCount: 1, SucceededIDs: ids}, func() string {
				return fmt.Sprintf("%s %s %d: ok\n", action, family, ids[0])
			})
		}
		res, err := ops.Bulk(ctx, action, ids, opts.Actor())
		if err != nil {
			return err
		}
		return output(cmd, opts, res, func() string {
			return fmt.Sprintf("%s %s: %d/%d succeeded, failed: %v\n", action, family, res.SuccessCount, res.Total, res.FailedIDs)
		})
	})
}

func single(ctx context.Context, ops trash.Operations, action ownership.Action, id int64, actor record.Actor) error {
	switch action {
	case ownership.ActionTrash:
		return ops.Trash(ctx, id, actor)
	case ownership.ActionPurge:
		return ops.Purge(ctx, id, actor)
	default:
		_, err := ops.Restore(ctx, id, actor)
		return err
	}
}

// NewRestoreCommand 从归档恢复记录，输出恢复后的记录 ID
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <family> <archive-id>",
		Short: "Restore an archived record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := record.ParseFamily(args[0])
			if err != nil {
				return err
			}
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				ops, err := a.Operations(family)
				if err != nil {
					return err
				}
				id, err := ops.Restore(ctx, ids[0], rootOpts.Actor())
				if err != nil {
					return err
				}
				return output(cmd, rootOpts, map[string]int64{"id": id}, func() string {
					return fmt.Sprintf("restored %s %d\n", family, id)
				})
			})
		},
	}
}

// NewTrashListCommand 列出回收站
func NewTrashListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		query string
		page  int
	)
	cmd := &cobra.Command{
		Use:   "trash-list <family>",
		Short: "List archived records, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := record.ParseFamily(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				ops, err := a.Operations(family)
				if err != nil {
					return err
				}
				res, err := ops.ListTrash(ctx, rootOpts.Actor(), snapshot.TrashQuery{Q: query, Page: page})
				if err != nil {
					return err
				}
				return output(cmd, rootOpts, trashListJSON(res), func() string { return trashListText(res) })
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "search label and detail")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

type trashItem struct {
	ArchiveID  int64     `json:"archive_id"`
	OriginalID *int64    `json:"original_id,omitempty"`
	Label      string    `json:"label"`
	Detail     string    `json:"detail"`
	DeletedAt  time.Time `json:"deleted_at"`
}

type trashList struct {
	Items    []trashItem `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func trashListJSON(p snapshot.Page) trashList {
	out := trashList{Items: make([]trashItem, 0, len(p.Items)), Total: p.Total, Page: p.Page, PageSize: p.PageSize}
	for _, a := range p.Items {
		out.Items = append(out.Items, trashItem{
			ArchiveID:  a.ID,
			OriginalID: a.OriginalID,
			Label:      a.Label,
			Detail:     a.Detail,
			DeletedAt:  a.DeletedAt,
		})
	}
	return out
}

func trashListText(p snapshot.Page) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ARCHIVE\tORIGINAL\tLABEL\tDELETED")
	for _, a := range p.Items {
		orig := "-"
		if a.OriginalID != nil {
			orig = fmt.Sprint(*a.OriginalID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", a.ID, orig, a.Label, a.DeletedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
	fmt.Fprintf(&b, "page %d, %d total\n", p.Page, p.Total)
	return b.String()
}

// NewActivityCommand 查看某用户最近的回收站操作
func NewActivityCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the acting user's recent trash activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				entries, err := a.Activity().Recent(ctx, rootOpts.ActorID, limit)
				if err != nil {
					return err
				}
				if entries == nil {
					entries = []activity.Entry{}
				}
				return output(cmd, rootOpts, entries, func() string {
					var b strings.Builder
					for _, e := range entries {
						fmt.Fprintf(&b, "%s  %s\n", e.Timestamp.Format(time.RFC3339), e.Type)
					}
					return b.String()
				})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}
