package worker

import (
	"context"
	"fmt"

	"github.com/cli/browser"
)

// BrowserOptionsOpener opens the options page in the user's browser.
type BrowserOptionsOpener struct {
	URL string
}

func (o BrowserOptionsOpener) OpenOptions(ctx context.Context) error {
	if err := browser.OpenURL(o.URL); err != nil {
		return fmt.Errorf("opening %s: %w", o.URL, err)
	}
	return nil
}
