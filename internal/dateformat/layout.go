package dateformat

import (
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Known tokens, longest first so that matching is greedy.
var tokenNames = []string{
	"YYYYYY",
	"YYYY", "gggg", "GGGG", "MMMM", "dddd", "DDDD", "DDDo",
	"MMM", "ddd", "DDD", "SSS",
	"YY", "gg", "GG", "Qo", "Mo", "MM", "Do", "DD", "do", "dd",
	"wo", "ww", "Wo", "WW", "HH", "hh", "kk", "mm", "ss", "SS", "ZZ",
	"Y", "Q", "M", "D", "d", "e", "E", "w", "W", "H", "h", "k", "m", "s",
	"S", "A", "a", "X", "x", "Z",
}

type token struct {
	text    string
	literal bool
}

// layout is a tokenized pattern. Unbracketed literal characters are kept as
// one token each so that loose parsing can skip over them individually.
type layout struct {
	tokens []token
}

var layoutCache *lru.Cache[string, layout]

func init() {
	c, err := lru.New[string, layout](512)
	if err != nil {
		panic(err)
	}
	layoutCache = c
}

func compile(pattern string) layout {
	if lay, ok := layoutCache.Get(pattern); ok {
		return lay
	}
	lay := tokenize(pattern)
	layoutCache.Add(pattern, lay)
	return lay
}

func tokenize(pattern string) layout {
	var toks []token
	for i := 0; i < len(pattern); {
		switch c := pattern[i]; {
		case c == '[':
			if j := strings.IndexByte(pattern[i+1:], ']'); j >= 0 {
				if text := pattern[i+1 : i+1+j]; text != "" {
					toks = append(toks, token{text: text, literal: true})
				}
				i += j + 2
				continue
			}
		case c == '\\' && i+1 < len(pattern):
			_, size := utf8.DecodeRuneInString(pattern[i+1:])
			toks = append(toks, token{text: pattern[i+1 : i+1+size], literal: true})
			i += 1 + size
			continue
		}
		if name, ok := matchTokenName(pattern[i:]); ok {
			toks = append(toks, token{text: name})
			i += len(name)
			continue
		}
		_, size := utf8.DecodeRuneInString(pattern[i:])
		toks = append(toks, token{text: pattern[i : i+size], literal: true})
		i += size
	}
	return layout{tokens: toks}
}

func matchTokenName(s string) (string, bool) {
	for _, name := range tokenNames {
		if strings.HasPrefix(s, name) {
			return name, true
		}
	}
	return "", false
}

// StripEscaped removes bracketed literal text from a pattern.
func StripEscaped(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '[' {
			if j := strings.IndexByte(pattern[i+1:], ']'); j >= 0 {
				i += j + 1
				continue
			}
		}
		b.WriteByte(pattern[i])
	}
	return b.String()
}
