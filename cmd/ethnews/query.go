package main

import (
	"github.com/spf13/cobra"

	"EthNews/internal/domain"
)

type queryOutput struct {
	Articles   []domain.ArticleRecord `json:"articles"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var (
		text   string
		cursor string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print one newest-first page of stored articles",
		Long: `Print one newest-first page of stored articles as JSON.

Examples:
  ethnews query                        # newest 20 articles
  ethnews query --q rollup --limit 5   # title or source contains "rollup"
  ethnews query --cursor <token>       # continue after a previous page`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := domain.DecodeCursor(cursor)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			application, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer application.Close()

			page, err := application.Query(ctx, domain.QueryParams{Text: text, Cursor: c, Limit: limit})
			if err != nil {
				return err
			}

			out := queryOutput{Articles: page.Items}
			if out.NextCursor, err = domain.EncodeCursor(page.NextCursor); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&text, "q", "", "case-insensitive title/source filter")
	cmd.Flags().StringVar(&cursor, "cursor", "", "continuation token from a previous page")
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultPageSize, "page size (1-50)")
	return cmd
}
