package match

import "strings"

// soundexCode maps a letter to its Soundex digit, or 0 for vowels and the
// letters h/w/y which are skipped.
func soundexCode(r rune) byte {
	switch r {
	case 'b', 'f', 'p', 'v':
		return '1'
	case 'c', 'g', 'j', 'k', 'q', 's', 'x', 'z':
		return '2'
	case 'd', 't':
		return '3'
	case 'l':
		return '4'
	case 'm', 'n':
		return '5'
	case 'r':
		return '6'
	}
	return 0
}

// soundex returns the classic 4-character Soundex key for a single token,
// or "" when the token has no leading letter to key on.
func soundex(token string) string {
	token = strings.ToLower(token)

	var first rune
	var rest []rune
	for i, r := range token {
		if r >= 'a' && r <= 'z' {
			first = r
			rest = []rune(token[i+1:])
			break
		}
	}
	if first == 0 {
		return ""
	}

	key := make([]byte, 0, 4)
	key = append(key, byte(first-'a'+'A'))

	prev := soundexCode(first)
	for _, r := range rest {
		if r < 'a' || r > 'z' {
			prev = 0
			continue
		}
		code := soundexCode(r)
		// h and w do not reset the previous code; vowels do
		if code == 0 {
			if r != 'h' && r != 'w' {
				prev = 0
			}
			continue
		}
		if code != prev {
			key = append(key, code)
			if len(key) == 4 {
				break
			}
		}
		prev = code
	}

	for len(key) < 4 {
		key = append(key, '0')
	}
	return string(key)
}
