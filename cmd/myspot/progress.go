package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const progressBarWidth = 30

// progressBar returns a callback that redraws a terminal progress bar
// on w. Safe for concurrent calls.
func progressBar(w io.Writer) func(done, total int, message string) {
	var mu sync.Mutex
	return func(done, total int, message string) {
		mu.Lock()
		defer mu.Unlock()
		if total <= 0 {
			return
		}
		filled := done * progressBarWidth / total
		if filled > progressBarWidth {
			filled = progressBarWidth
		}
		bar := strings.Repeat("#", filled) + strings.Repeat("-", progressBarWidth-filled)
		fmt.Fprintf(w, "\r[%s] %3d%% %s", bar, done*100/total, message)
		if done >= total {
			fmt.Fprintln(w)
		}
	}
}
