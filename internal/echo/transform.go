package echo

import (
	"bytes"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Signature is appended to every reply.
const Signature = "\nServed by oneshot-server"

// Transform builds the reply for msg: runes reversed, lower-cased, then
// title-cased word by word, followed by Signature.
func Transform(msg []byte) []byte {
	runes := bytes.Runes(msg)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}

	// A Caser keeps state; one per call.
	title := cases.Title(language.English).String(strings.ToLower(string(runes)))

	out := make([]byte, 0, len(title)+len(Signature))
	out = append(out, title...)
	return append(out, Signature...)
}
