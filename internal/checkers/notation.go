package checkers

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatPosition renders a position as "row,col".
func FormatPosition(p Position) string {
	return fmt.Sprintf("%d,%d", p.Row, p.Col)
}

// FormatMove renders a from/to pair as "row,col-row,col".
func FormatMove(from, to Position) string {
	return FormatPosition(from) + "-" + FormatPosition(to)
}

// ParsePosition accepts either a zero-based "row,col" pair or algebraic
// notation (column letter a-h, 1-based row number with row 1 at the top
// edge, e.g. "a6").
func ParsePosition(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Position{}, fmt.Errorf("empty position")
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		row, err1 := strconv.Atoi(strings.TrimSpace(s[:i]))
		col, err2 := strconv.Atoi(strings.TrimSpace(s[i+1:]))
		if err1 != nil || err2 != nil {
			return Position{}, fmt.Errorf("bad coordinate pair %q", s)
		}
		return Position{Row: row, Col: col}, nil
	}
	if len(s) < 2 || s[0] < 'a' || s[0] > 'h' {
		return Position{}, fmt.Errorf("bad algebraic square %q", s)
	}
	row, err := strconv.Atoi(s[1:])
	if err != nil || row < 1 || row > BoardSize {
		return Position{}, fmt.Errorf("bad algebraic square %q", s)
	}
	return Position{Row: row - 1, Col: int(s[0] - 'a')}, nil
}

// ParseMove accepts "5,0-4,1" and "a6-b5" move forms.
func ParseMove(s string) (from, to Position, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return Position{}, Position{}, fmt.Errorf("move %q: want <from>-<to>", s)
	}
	if from, err = ParsePosition(parts[0]); err != nil {
		return Position{}, Position{}, err
	}
	if to, err = ParsePosition(parts[1]); err != nil {
		return Position{}, Position{}, err
	}
	return from, to, nil
}
