package domain

// Normalized is an accepted entry: the record to store and the cleaned body
// text the summarizer works from.
type Normalized struct {
	Record ArticleRecord
	Body   string
}
