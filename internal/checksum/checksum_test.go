package checksum

import "testing"

func TestSum(t *testing.T) {
	got := Sum([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("got = %q, want %q", got, want)
	}
	if Sum(nil) == got {
		t.Error("empty input hashed like abc")
	}
}
