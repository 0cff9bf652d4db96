package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "TestCheckout", "TestCheckout"},
		{"keeps dots and dashes", "get-users.v2", "get-users.v2"},
		{"slash from subtest", "TestOrders/create", "TestOrders_create"},
		{"spaces", "create order ok", "create_order_ok"},
		{"accents folded", "café-résumé", "cafe-resume"},
		{"windows reserved chars", `a<b>c:d"e|f?g*h\i`, "a_b_c_d_e_f_g_h_i"},
		{"non latin", "テスト", "___"},
		{"empty", "", "_"},
		{"dot", ".", "_"},
		{"dot dot", "..", "_"},
		{"traversal", "../etc/passwd", ".._etc_passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SafeFileName(tt.input))
		})
	}
}

func TestSafeFileName_Length(t *testing.T) {
	t.Parallel()

	got := SafeFileName(strings.Repeat("a", MaxFileNameLength+50))
	assert.Len(t, got, MaxFileNameLength)
}

func TestTruncateBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		maxSize int
		want    string
	}{
		{"short string no truncation", "hello", 100, "hello"},
		{"exact length", "12345", 5, "12345"},
		{"one over", "123456", 5, "12345...(truncated)"},
		{"zero maxSize uses default", "hello", 0, "hello"},
		{"negative maxSize uses default", "hello", -1, "hello"},
		{"empty string", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TruncateBody(tt.data, tt.maxSize))
		})
	}
}

func TestTruncateBody_DefaultMaxSize(t *testing.T) {
	t.Parallel()

	data := strings.Repeat("x", MaxLogBodySize+100)

	result := TruncateBody(data, 0)
	assert.Equal(t, MaxLogBodySize+len("...(truncated)"), len(result))
	assert.Contains(t, result, "...(truncated)")

	short := data[:MaxLogBodySize]
	assert.Equal(t, short, TruncateBody(short, 0))
}
