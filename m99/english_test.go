package m99

import (
	"math/rand"
	"sort"
)

// englishChars and englishFreqs approximate the character distribution of
// English prose.
var englishChars = []byte{
	' ', 'e', 't', 'a', 'o', 'i', 'n', 's', 'h', 'r',
	'd', 'l', 'c', 'u', 'm', 'w', 'f', 'g', 'y', 'p',
	'b', 'v', 'k', 'j', 'x', 'q', 'z',
	'E', 'T', 'A', 'O', 'I', 'N', 'S', 'H', 'R', 'D',
	'L', 'C', 'U', 'M', 'W', 'F', 'G', 'Y', 'P', 'B',
	'V', 'K', 'J', 'X', 'Q', 'Z',
	'.', ',', '!', '?', ';', ':', '-', '\'', '"', '(',
	')', '[', ']', '{', '}', '\n', '\t', '\r',
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
}

var englishFreqs = []int{
	1300, 1270, 906, 817, 751, 697, 675, 633, 609, 599, // space, e, t, a, o, i, n, s, h, r
	425, 403, 278, 276, 241, 236, 223, 202, 197, 193, // d, l, c, u, m, w, f, g, y, p
	149, 98, 77, 15, 15, 10, 7, // b, v, k, j, x, q, z
	50, 50, 45, 40, 40, 35, 35, 30, 30, 25, // uppercase E-D
	25, 20, 20, 15, 15, 15, 15, 10, 10, 10, // uppercase L-B
	8, 5, 5, 3, 2, 2, // uppercase V-Z
	100, 80, 20, 15, 10, 8, 50, 30, 40, 15, // punctuation . , ! ? ; : - ' " (
	15, 10, 10, 5, 5, 80, 20, 5, // ) [ ] { } \n \t \r
	50, 50, 50, 50, 50, 50, 50, 50, 50, 50, // digits 0-9
}

// englishText generates n bytes of text with English character frequencies.
func englishText(rng *rand.Rand, n int) []byte {
	cumulative := make([]int, len(englishFreqs))
	total := 0
	for i, f := range englishFreqs {
		total += f
		cumulative[i] = total
	}

	text := make([]byte, n)
	for i := range text {
		r := rng.Intn(total)
		text[i] = englishChars[sort.SearchInts(cumulative, r+1)]
	}
	return text
}
