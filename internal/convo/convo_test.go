package convo

import "testing"

func TestPayloadRoundTrip(t *testing.T) {
	p := Payload{
		ClientName:  "maria",
		ClientPhone: "+50688881234",
		Amount:      75.50,
		Tone:        ToneFriendly,
		Draft:       "Hi Maria!",
	}
	got := DecodePayload(p.Encode())
	if got != p {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDecodePayload_MalformedYieldsZero(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"amount":"fifty"}`, "{"} {
		if got := DecodePayload(raw); got != (Payload{}) {
			t.Fatalf("DecodePayload(%q) = %+v; want zero", raw, got)
		}
	}
}

func TestMatchTone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"formal", ToneFormal, true},
		{"1", ToneFormal, true},
		{" Friendly ", ToneFriendly, true},
		{"2", ToneFriendly, true},
		{"FIRM", ToneFirm, true},
		{"3", ToneFirm, true},
		{"casual", "", false},
		{"4", "", false},
	}
	for _, tc := range cases {
		got, ok := MatchTone(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("MatchTone(%q) = (%q, %v); want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMatchYesNo(t *testing.T) {
	for _, in := range []string{"yes", "Y", "send", "ok", "confirm"} {
		yes, ok := MatchYesNo(in)
		if !ok || !yes {
			t.Fatalf("MatchYesNo(%q) = (%v, %v); want affirmative", in, yes, ok)
		}
	}
	for _, in := range []string{"no", "n", "skip", "don't"} {
		yes, ok := MatchYesNo(in)
		if !ok || yes {
			t.Fatalf("MatchYesNo(%q) = (%v, %v); want negative", in, yes, ok)
		}
	}
	if _, ok := MatchYesNo("maybe"); ok {
		t.Fatalf("ambiguous answer treated as decided")
	}
}

func TestMatchCycle(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"monthly", CycleMonthly, true},
		{"Month", CycleMonthly, true},
		{"1", CycleMonthly, true},
		{"yearly", CycleYearly, true},
		{"annual", CycleYearly, true},
		{"2", CycleYearly, true},
		{"weekly", "", false},
	}
	for _, tc := range cases {
		got, ok := MatchCycle(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("MatchCycle(%q) = (%q, %v); want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIsCancel(t *testing.T) {
	for _, in := range []string{"cancel", "STOP", " never mind ", "nevermind"} {
		if !IsCancel(in) {
			t.Fatalf("IsCancel(%q) = false", in)
		}
	}
	for _, in := range []string{"cancel it", "continue", ""} {
		if IsCancel(in) {
			t.Fatalf("IsCancel(%q) = true", in)
		}
	}
}
