package domain

// Source is one configured feed to poll.
type Source struct {
	Name string
	URL  string
	// Parser selects the registered parse strategy; empty means the default.
	Parser string
	// TopicScoped sources are already about the domain and skip keyword filtering.
	TopicScoped bool
}
