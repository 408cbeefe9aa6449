package helper

import (
	"fmt"
	"net/http"
	"sync"
)

// Reporter is the slice of the error handler the helper needs for
// background-task panics.
type Reporter interface {
	ReportServerError(r *http.Request, err error)
}

type HelperRepository struct {
	baseUrl  *string
	WG       *sync.WaitGroup
	reporter Reporter
}

func New(baseUrl *string, wg *sync.WaitGroup, reporter Reporter) *HelperRepository {
	return &HelperRepository{
		baseUrl:  baseUrl,
		WG:       wg,
		reporter: reporter,
	}
}

// SetReporter wires the error reporter in after construction. The reporter
// itself depends on this helper, so it cannot be passed to New.
func (h *HelperRepository) SetReporter(reporter Reporter) {
	h.reporter = reporter
}

func (h *HelperRepository) NewEmailData() map[string]any {
	data := map[string]any{
		"BaseURL": h.baseUrl,
	}

	return data
}

// BackgroundTask runs fn on its own goroutine, recovering panics and routing
// failures through the error reporter. The wait group lets the server drain
// in-flight tasks on shutdown.
func (h *HelperRepository) BackgroundTask(r *http.Request, fn func() error) {
	h.WG.Add(1)

	go func() {
		defer h.WG.Done()

		defer func() {
			err := recover()
			if err != nil && h.reporter != nil {
				h.reporter.ReportServerError(nil, fmt.Errorf("%s", err))
			}
		}()

		err := fn()
		if err != nil && h.reporter != nil {
			h.reporter.ReportServerError(r, err)
		}
	}()
}
