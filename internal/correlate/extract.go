package correlate

// ExtractCode returns the first maximal run of decimal digits in text.
// Multiple runs are never concatenated: "20-123-45" yields "20". The second
// return is false when the text contains no digits at all.
func ExtractCode(text string) (string, bool) {
	start := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c >= '0' && c <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return text[start:i], true
		}
	}
	if start >= 0 {
		return text[start:], true
	}
	return "", false
}
