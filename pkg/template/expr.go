package template

import "strings"

// call is a function expression split into its name and raw arguments.
type call struct {
	name string
	args []string
}

// parseCall accepts both name(a, b) and name a b.
func parseCall(expr string) call {
	if open := strings.IndexByte(expr, '('); open > 0 && strings.HasSuffix(expr, ")") {
		if name := strings.TrimSpace(expr[:open]); !strings.ContainsAny(name, " \t") {
			return call{name: name, args: splitFuncArgs(expr[open+1 : len(expr)-1])}
		}
	}
	fields := splitQuoted(expr, isSpace, false)
	if len(fields) == 0 {
		return call{}
	}
	return call{name: fields[0], args: fields[1:]}
}

// splitFuncArgs splits a comma separated argument list. Commas inside
// quotes do not split, and quotes are kept on the returned arguments.
func splitFuncArgs(s string) []string {
	return splitQuoted(s, func(c byte) bool { return c == ',' }, true)
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

func splitQuoted(s string, isSep func(byte) bool, keepEmpty bool) []string {
	var (
		out   []string
		cur   strings.Builder
		quote byte
	)
	flush := func() {
		arg := strings.TrimSpace(cur.String())
		if arg != "" || keepEmpty {
			out = append(out, arg)
		}
		cur.Reset()
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case isSep(c):
			flush()
			continue
		}
		cur.WriteByte(c)
	}
	if cur.Len() > 0 {
		flush()
	}
	return out
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0]
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}
