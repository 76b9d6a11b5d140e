package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mindpath-app/mindpath/internal/app/engagement"
)

// ─── Terminal Rendering ─────────────────────────────────────────────────────
// Level bar: [===========>..................] 42% │ 58 XP to level 3
// Week strip: Mon ● Tue ● Wed ○ Thu ○ Fri ○ Sat ○ Sun ○

const barWidth = 30 // Characters for the progress bar

func levelBar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	var bar string
	if filled == barWidth {
		bar = strings.Repeat("=", filled)
	} else if filled > 0 {
		bar = strings.Repeat("=", filled-1) + ">" + strings.Repeat(".", empty)
	} else {
		bar = strings.Repeat(".", barWidth)
	}
	return fmt.Sprintf("[%s] %3.0f%%", bar, pct)
}

func writeWeek(w io.Writer, week [7]engagement.DayMark) {
	cells := make([]string, 0, len(week))
	for _, d := range week {
		mark := "○"
		if d.Completed {
			mark = "●"
		}
		label := d.Weekday
		if d.Today {
			label = strings.ToUpper(label)
		}
		cells = append(cells, label+" "+mark)
	}
	fmt.Fprintln(w, strings.Join(cells, "  "))
}
