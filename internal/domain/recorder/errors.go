package recorder

import (
	"errors"
	"fmt"
)

// ErrDuplicate reports an article id that was already recorded by this process.
var ErrDuplicate = errors.New("selection already recorded")

// Warning is a non-fatal recording failure. The caller's primary result
// stands; only the analytics for this cycle were lost.
type Warning struct {
	ArticleID string
	Err       error
}

func (w *Warning) Error() string {
	return fmt.Sprintf("selection %s not recorded: %v", w.ArticleID, w.Err)
}

func (w *Warning) Unwrap() error { return w.Err }
