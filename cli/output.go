package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// output json 格式输出 v，text 格式输出 text()
func output(cmd *cobra.Command, opts *RootOptions, v any, text func() string) error {
	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := io.WriteString(w, text())
	return err
}
