package partialjson

// scanState is the lexical position of the scanner relative to string literals.
type scanState int

const (
	stateNormal scanState = iota
	stateInString
	stateEscaped
)

// scanner walks a buffer once and records what is still open at its end.
type scanner struct {
	state scanState
	// closers holds the expected closing token for every open structure,
	// innermost last.
	closers []byte
	broken  bool
}

func (s *scanner) scan(text string) {
	for i := 0; i < len(text) && !s.broken; i++ {
		s.step(text[i])
	}
}

func (s *scanner) step(c byte) {
	switch s.state {
	case stateEscaped:
		s.state = stateInString
	case stateInString:
		switch c {
		case '\\':
			s.state = stateEscaped
		case '"':
			s.state = stateNormal
		}
	case stateNormal:
		switch c {
		case '"':
			s.state = stateInString
		case '{':
			s.closers = append(s.closers, '}')
		case '[':
			s.closers = append(s.closers, ']')
		case '}', ']':
			n := len(s.closers)
			if n == 0 || s.closers[n-1] != c {
				// no suffix can balance this
				s.broken = true
				return
			}
			s.closers = s.closers[:n-1]
		}
	}
}

// suffix returns the text that terminates an open string and then closes
// every open structure, innermost first.
func (s *scanner) suffix() string {
	out := make([]byte, 0, len(s.closers)+1)
	if s.state != stateNormal {
		out = append(out, '"')
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		out = append(out, s.closers[i])
	}
	return string(out)
}
