package importer

// zsh writes bytes in 0x83..0xa2 (and NUL) as meta followed by the byte
// XOR 0x20.
const meta = 0x83

// unmetafy decodes zsh's metafied encoding. Text without the marker is
// returned unchanged.
func unmetafy(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] != meta {
		i++
	}
	if i == len(b) {
		return b
	}

	out := make([]byte, i, len(b))
	copy(out, b[:i])
	for ; i < len(b); i++ {
		if b[i] == meta && i+1 < len(b) {
			i++
			out = append(out, b[i]^0x20)
			continue
		}
		out = append(out, b[i])
	}
	return out
}
