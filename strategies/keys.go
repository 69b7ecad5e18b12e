package strategies

import "github.com/distlimit/distlimit/utils/builderpool"

// BuildKey joins prefix and the variadic suffix parts with ':' using a
// pooled builder, mirroring the teacher's allocation-light key assembly.
func BuildKey(prefix string, parts ...string) string {
	b := builderpool.Get()
	defer builderpool.Put(b)

	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}
