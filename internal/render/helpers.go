// Package render produces Graphviz DOT output from method listings, call
// edges and control flow graphs.
package render

import (
	"fmt"
	"strings"
)

// dotEscape escapes a string for use in DOT HTML labels.
func dotEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// dotID creates a safe DOT identifier from a method or class name.
func dotID(name string) string {
	var b strings.Builder
	b.WriteString("n_")
	for _, c := range name {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteRune(c)
		} else {
			fmt.Fprintf(&b, "_%04x", c)
		}
	}
	return b.String()
}

// simpleName drops the package path from an internal class name.
// "com/game/Space" → "Space".
func simpleName(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ownerOf returns the class part of "owner.method", or "" if there is none.
func ownerOf(funcName string) string {
	if i := strings.LastIndex(funcName, "."); i > 0 {
		return funcName[:i]
	}
	return ""
}

// stripMethodName removes the owner prefix from a fully qualified method name.
// "Owner.methodName" → "methodName". Returns the original if no match.
func stripMethodName(funcName, owner string) string {
	prefix := owner + "."
	if strings.HasPrefix(funcName, prefix) {
		return funcName[len(prefix):]
	}
	return funcName
}

// truncLabel shortens a label to maxLen, appending "..." if truncated.
func truncLabel(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
