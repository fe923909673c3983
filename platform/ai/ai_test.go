package ai

import "testing"

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  ```\n{\"a\":1}```  ", "{\"a\":1}"},
	}
	for _, tc := range cases {
		if got := StripCodeFence(tc.in); got != tc.want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
