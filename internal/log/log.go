// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// InitLogger sets up Apex with a custom handler and a log level. An explicit
// level wins over the BUILDMEMO_LOG env variable; the default is ERROR.
func InitLogger(level ...string) {
	lvl := os.Getenv("BUILDMEMO_LOG")
	if len(level) > 0 && level[0] != "" {
		lvl = level[0]
	}
	lvl = strings.ToUpper(lvl)
	if lvl == "" {
		lvl = "ERROR"
	}
	log.SetHandler(NewHandler(os.Stderr))
	parsed, err := log.ParseLevel(strings.ToLower(lvl))
	if err != nil {
		parsed = log.ErrorLevel
	}
	log.SetLevel(parsed)
}

// CustomHandler formats log messages as single lines. Fields are appended as
// sorted key=value pairs.
type CustomHandler struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewHandler returns a CustomHandler writing to w.
func NewHandler(w io.Writer) *CustomHandler {
	return &CustomHandler{w: w, now: time.Now}
}

// HandleLog implements the log.Handler interface
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	timestamp := h.now().Format("2006-01-02 15:04:05")
	level := strings.ToUpper(e.Level.String())

	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", timestamp, level, e.Message)

	names := e.Fields.Names()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields.Get(name))
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}
