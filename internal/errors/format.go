package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// FormatForCLI renders an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var me *MenuError
	if !errors.As(err, &me) {
		me = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", me.Message)
	if me.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", me.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", me.Code)
	return sb.String()
}

// LogAttrs returns slog attributes describing err, suitable for
// logger.Warn("event", errors.LogAttrs(err)...).
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	var me *MenuError
	if !errors.As(err, &me) {
		return []any{slog.String("error", err.Error())}
	}

	attrs := []any{
		slog.String("error_code", me.Code),
		slog.String("error", me.Error()),
		slog.String("severity", string(me.Severity)),
		slog.Bool("retryable", me.Retryable),
	}

	keys := make([]string, 0, len(me.Details))
	for k := range me.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, me.Details[k]))
	}
	return attrs
}
