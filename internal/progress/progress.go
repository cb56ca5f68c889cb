// Package progress wraps mpb bars so callers can ignore whether progress output is enabled.
package progress

import (
	"fmt"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Bar is a counting bar.  A nil *Bar is valid and does nothing.
type Bar struct {
	bar *mpb.Bar
}

// Add puts a bar for total units on p.  It returns nil when p is nil or total is zero; an empty
// bar never completes and would hang p.Wait.
func Add(p *mpb.Progress, name string, total int) *Bar {
	if p == nil || total <= 0 {
		return nil
	}

	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			// display our name with one space on the right
			decor.Name(fmt.Sprintf("%s:", name),
				decor.WC{C: decor.DindentRight | decor.DextraSpace}),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("(%d/%d) "),
			decor.NewPercentage("%d"),
			decor.Spinner([]string{" /", " -", " \\", " |"}),
		),
	)
	return &Bar{bar: bar}
}

func (b *Bar) Increment() {
	if b == nil {
		return
	}
	b.bar.Increment()
}

// Abort removes the bar so that p.Wait doesn't block on work that will never finish.
func (b *Bar) Abort() {
	if b == nil {
		return
	}
	b.bar.Abort(true)
}
