package intent

import "testing"

func TestMatchLocal_AddDebt(t *testing.T) {
	cases := []struct {
		in     string
		name   string
		amount float64
		note   string
	}{
		{"debt maria 50", "maria", 50, ""},
		{"debt maria 50 groceries", "maria", 50, "groceries"},
		{"add debt maria 50", "maria", 50, ""},
		{"DEBT Maria $12.50 two sodas", "maria", 12.50, "two sodas"},
		{"debt don carlos 100", "don carlos", 100, ""},
		{"debt maria 12,50", "maria", 12.50, ""},
	}
	for _, tc := range cases {
		it, ok := MatchLocal(tc.in)
		if !ok {
			t.Fatalf("%q did not match", tc.in)
		}
		if it.Kind != KindAddDebt {
			t.Fatalf("%q kind = %q", tc.in, it.Kind)
		}
		if it.ClientName != tc.name || it.Amount != tc.amount || it.Note != tc.note {
			t.Fatalf("%q slots = (%q, %v, %q); want (%q, %v, %q)",
				tc.in, it.ClientName, it.Amount, it.Note, tc.name, tc.amount, tc.note)
		}
	}
}

func TestMatchLocal_SlottedCommands(t *testing.T) {
	it, ok := MatchLocal("paid maria")
	if !ok || it.Kind != KindMarkPaid || it.ClientName != "maria" {
		t.Fatalf("paid: %+v ok=%v", it, ok)
	}

	it, ok = MatchLocal("remind don carlos")
	if !ok || it.Kind != KindRemind || it.ClientName != "don carlos" {
		t.Fatalf("remind: %+v ok=%v", it, ok)
	}

	it, ok = MatchLocal("save phone of maria +506 8888-1234")
	if !ok || it.Kind != KindSavePhone {
		t.Fatalf("save phone: %+v ok=%v", it, ok)
	}
	if it.ClientName != "maria" || it.Phone != "+50688881234" {
		t.Fatalf("save phone slots: name=%q phone=%q", it.ClientName, it.Phone)
	}
}

func TestMatchLocal_Keywords(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
	}{
		{"hi", KindGreeting},
		{"Hello", KindGreeting},
		{"help", KindHelp},
		{"list", KindListDebts},
		{"  List Debts  ", KindListDebts},
		{"priority", KindPrioritize},
		{"pricing", KindPricing},
		{"pro", KindWantPro},
		{"upgrade", KindWantPro},
		{"support", KindSupport},
		{"cancel", KindCancel},
	}
	for _, tc := range cases {
		it, ok := MatchLocal(tc.in)
		if !ok || it.Kind != tc.want {
			t.Fatalf("%q -> (%q, %v); want %q", tc.in, it.Kind, ok, tc.want)
		}
	}
}

func TestMatchLocal_NoMatch(t *testing.T) {
	for _, in := range []string{"", "   ", "how much does maria owe me", "debt maria", "debt maria zero"} {
		if it, ok := MatchLocal(in); ok {
			t.Fatalf("%q matched as %q; want no match", in, it.Kind)
		}
	}
}

func TestMatchLocal_SlottedBeatsKeyword(t *testing.T) {
	// "remind" followed by a name must hit the slotted matcher, never a
	// keyword by prefix.
	it, ok := MatchLocal("remind priority")
	if !ok || it.Kind != KindRemind || it.ClientName != "priority" {
		t.Fatalf("got %+v ok=%v", it, ok)
	}
}

func TestLooksLikeCommand(t *testing.T) {
	for _, in := range []string{"pay", " PAY ", "debt maria 50", "list", "cancel"} {
		if !LooksLikeCommand(in) {
			t.Fatalf("%q not recognized as a command", in)
		}
	}
	for _, in := range []string{"friendly", "yes", "Corner Store", "please pay me back"} {
		if LooksLikeCommand(in) {
			t.Fatalf("%q misread as a command", in)
		}
	}
}
