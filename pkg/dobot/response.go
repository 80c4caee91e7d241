package dobot

import (
	"bytes"
	"regexp"
	"strconv"
)

// Terminator ends every controller reply.
const Terminator = ';'

var intPattern = regexp.MustCompile(`-?\d+`)

// Response is a raw controller reply and the integers found in it.
//
// The integer sequence is positional: the controller documents no structure
// beyond "code first", so each command defines which index carries its value.
type Response struct {
	Raw  []byte
	Ints []int
}

// ParseResponse extracts every optionally signed digit run from raw.
func ParseResponse(raw []byte) Response {
	r := Response{Raw: raw}
	for _, m := range intPattern.FindAll(raw, -1) {
		n, err := strconv.Atoi(string(m))
		if err != nil {
			// out of int range; keep positions stable
			n = 0
		}
		r.Ints = append(r.Ints, n)
	}
	return r
}

// Int returns the i-th integer of the reply.
func (r Response) Int(i int) (int, bool) {
	if i < 0 || i >= len(r.Ints) {
		return 0, false
	}
	return r.Ints[i], true
}

// Code is the controller's result code, the first integer of the reply.
func (r Response) Code() (int, bool) {
	return r.Int(0)
}

// Complete reports whether the reply carries a terminator.
func (r Response) Complete() bool {
	return bytes.IndexByte(r.Raw, Terminator) >= 0
}

func (r Response) String() string {
	return string(r.Raw)
}
