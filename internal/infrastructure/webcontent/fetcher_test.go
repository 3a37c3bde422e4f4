package webcontent

import "testing"

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text untouched",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "tags removed",
			input: "<html><body><h1>Title</h1><p>Body text.</p></body></html>",
			want:  "Title Body text.",
		},
		{
			name:  "script and style dropped with contents",
			input: "<script>var x = 1;</script><style>p{color:red}</style><p>kept</p>",
			want:  "kept",
		},
		{
			name:  "entities decoded",
			input: "a &amp; b &lt;c&gt; &quot;d&quot;",
			want:  `a & b <c> "d"`,
		},
		{
			name:  "whitespace collapsed",
			input: "<p>a</p>   \t  <p>b</p>",
			want:  "a b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkup(tt.input); got != tt.want {
				t.Errorf("StripMarkup(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
