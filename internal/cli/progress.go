package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// extractProgress draws a progress bar over extraction when stderr is a
// terminal and output is not JSON.
type extractProgress struct {
	enabled bool
	w       io.Writer
	bar     *progressbar.ProgressBar
}

func newExtractProgress(w io.Writer, asJSON bool) *extractProgress {
	enabled := false
	if f, ok := w.(*os.File); ok && !asJSON {
		stat, err := f.Stat()
		enabled = err == nil && (stat.Mode()&os.ModeCharDevice) != 0
	}
	return &extractProgress{enabled: enabled, w: w}
}

// Start is called once the scan knows how many files will be extracted.
func (p *extractProgress) Start(total int) {
	if !p.enabled || total == 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.w)
		}),
	)
}

// Advance may be called from several extraction workers at once.
func (p *extractProgress) Advance(string) {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *extractProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
