package scheme

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

type reader struct {
	in    *Interner
	input []rune
	pos   int
	quote *Symbol
}

// Read parses every datum in src. An input holding only whitespace and
// comments yields an empty slice.
func Read(in *Interner, src string) ([]Value, error) {
	r := &reader{in: in, input: []rune(src), quote: in.Intern("quote")}
	var data []Value
	for {
		r.skipWhitespace()
		if r.pos >= len(r.input) {
			return data, nil
		}
		d, err := r.readDatum()
		if err != nil {
			return nil, err
		}
		data = append(data, d)
	}
}

// ReadOne parses exactly one datum.
func ReadOne(in *Interner, src string) (Value, error) {
	data, err := Read(in, src)
	if err != nil {
		return Value{}, err
	}
	if len(data) != 1 {
		return Value{}, &ReadError{Pos: 0, Reason: fmt.Sprintf("expected 1 datum, got %d", len(data))}
	}
	return data[0], nil
}

// IsIncomplete reports whether err came from input that ended inside a list,
// string or quote, so more input could complete it.
func IsIncomplete(err error) bool {
	re, ok := err.(*ReadError)
	return ok && re.Incomplete
}

func (r *reader) errorf(incomplete bool, format string, args ...any) error {
	return &ReadError{Pos: r.pos, Reason: fmt.Sprintf(format, args...), Incomplete: incomplete}
}

func (r *reader) readDatum() (Value, error) {
	if r.pos >= len(r.input) {
		return Value{}, r.errorf(true, "unexpected end of input")
	}
	ch := r.input[r.pos]
	switch {
	case ch == '\'':
		return r.readQuote()
	case ch == '(':
		return r.readList()
	case ch == ')':
		return Value{}, r.errorf(false, "unexpected ')'")
	case ch == '"':
		return r.readString()
	default:
		return r.readAtom()
	}
}

func (r *reader) readQuote() (Value, error) {
	r.pos++ // skip '\''
	r.skipWhitespace()
	inner, err := r.readDatum()
	if err != nil {
		return Value{}, err
	}
	return List(SymbolVal(r.quote), inner), nil
}

func (r *reader) readList() (Value, error) {
	r.pos++ // skip '('
	var elems []Value
	for {
		r.skipWhitespace()
		if r.pos >= len(r.input) {
			return Value{}, r.errorf(true, "unclosed list")
		}
		if r.input[r.pos] == ')' {
			r.pos++
			return List(elems...), nil
		}
		if r.atDot() {
			if len(elems) == 0 {
				return Value{}, r.errorf(false, "'.' with no preceding datum")
			}
			r.pos++
			r.skipWhitespace()
			tail, err := r.readDatum()
			if err != nil {
				return Value{}, err
			}
			r.skipWhitespace()
			if r.pos >= len(r.input) {
				return Value{}, r.errorf(true, "unclosed list")
			}
			if r.input[r.pos] != ')' {
				return Value{}, r.errorf(false, "expected ')' after dotted tail")
			}
			r.pos++
			return ListWithTail(elems, tail), nil
		}
		d, err := r.readDatum()
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, d)
	}
}

// atDot reports whether the next token is a lone '.'.
func (r *reader) atDot() bool {
	if r.input[r.pos] != '.' {
		return false
	}
	return r.pos+1 >= len(r.input) || isDelimiter(r.input[r.pos+1])
}

func (r *reader) readString() (Value, error) {
	r.pos++ // skip opening '"'
	var buf strings.Builder
	for r.pos < len(r.input) {
		ch := r.input[r.pos]
		if ch == '\\' {
			r.pos++
			if r.pos >= len(r.input) {
				return Value{}, r.errorf(true, "unexpected end of input in string escape")
			}
			switch esc := r.input[r.pos]; esc {
			case 'n':
				buf.WriteRune('\n')
			case 't':
				buf.WriteRune('\t')
			case '\\':
				buf.WriteRune('\\')
			case '"':
				buf.WriteRune('"')
			default:
				return Value{}, r.errorf(false, "unknown escape sequence: \\%c", esc)
			}
			r.pos++
			continue
		}
		if ch == '"' {
			r.pos++ // skip closing '"'
			return StringVal(buf.String()), nil
		}
		buf.WriteRune(ch)
		r.pos++
	}
	return Value{}, r.errorf(true, "unclosed string")
}

func (r *reader) readAtom() (Value, error) {
	start := r.pos
	for r.pos < len(r.input) && !isDelimiter(r.input[r.pos]) {
		r.pos++
	}
	token := string(r.input[start:r.pos])
	if token == "" {
		return Value{}, r.errorf(false, "unexpected character: %c", r.input[start])
	}

	switch token {
	case "#t", "#true":
		return True, nil
	case "#f", "#false":
		return False, nil
	}
	if token[0] == '#' {
		return Value{}, &ReadError{Pos: start, Reason: fmt.Sprintf("unknown syntax: %s", token)}
	}

	if n, ok, err := parseNumber(token); ok {
		if err != nil {
			return Value{}, &ReadError{Pos: start, Reason: err.Error()}
		}
		return NumberVal(n), nil
	}
	return SymbolVal(r.in.Intern(token)), nil
}

// parseNumber recognises decimal integers and n/d fractions. ok is false
// when token is not numeric syntax and should be read as a symbol.
func parseNumber(token string) (n *Number, ok bool, err error) {
	numStr, denStr, isFrac := strings.Cut(token, "/")
	num, ok := new(big.Int).SetString(numStr, 10)
	if !ok {
		return nil, false, nil
	}
	if !isFrac {
		return NewBigInt(num), true, nil
	}
	if denStr == "" || denStr[0] == '+' || denStr[0] == '-' {
		return nil, false, nil
	}
	den, ok := new(big.Int).SetString(denStr, 10)
	if !ok {
		return nil, false, nil
	}
	if den.Sign() == 0 {
		return nil, true, fmt.Errorf("division by zero in %s", token)
	}
	return NewRat(num, den), true, nil
}

func (r *reader) skipWhitespace() {
	for r.pos < len(r.input) {
		ch := r.input[r.pos]
		if ch == ';' {
			for r.pos < len(r.input) && r.input[r.pos] != '\n' {
				r.pos++
			}
			continue
		}
		if !unicode.IsSpace(ch) {
			break
		}
		r.pos++
	}
}

func isDelimiter(ch rune) bool {
	return unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' || ch == ';' || ch == '\''
}
