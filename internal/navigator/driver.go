package navigator

import "context"

// Element is a handle to one node found by Driver.Query.
type Element interface {
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	Click(ctx context.Context) error
}

// Driver is the page-driver capability the engine consumes. One Driver is one
// browser session that may hold several contexts (tabs).
type Driver interface {
	Load(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	// BodyText returns the visible text of the page.
	BodyText(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Query(ctx context.Context, selector string) ([]Element, error)
	// Ready reports whether document.readyState is "complete".
	Ready(ctx context.Context) (bool, error)
	Contexts(ctx context.Context) ([]string, error)
	SwitchContext(ctx context.Context, handle string) error
	Screenshot(ctx context.Context) ([]byte, error)
}

// Pauser blocks until a human acknowledges message.
type Pauser interface {
	Confirm(ctx context.Context, message string) error
}
