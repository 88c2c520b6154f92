package notifier

import "testing"

func TestComputeIdentity_StableUnderTrimAndCase(t *testing.T) {
	base := NoticeRecord{Title: "IU Concert", OpenDate: "2025.03.01 18:00", Source: "interpark"}
	variants := []NoticeRecord{
		{Title: "  IU Concert  ", OpenDate: "2025.03.01 18:00", Source: "interpark"},
		{Title: "iu concert", OpenDate: "2025.03.01 18:00", Source: "INTERPARK"},
		{Title: "IU CONCERT", OpenDate: " 2025.03.01 18:00 ", Source: " Interpark "},
	}

	want := ComputeIdentity(base)
	if want == "" {
		t.Fatal("base record should have an identity")
	}
	for _, v := range variants {
		if got := ComputeIdentity(v); got != want {
			t.Errorf("identity not stable: %q != %q for %+v", got, want, v)
		}
	}
}

func TestComputeIdentity_DistinctOnDateChange(t *testing.T) {
	a := NoticeRecord{Title: "IU Concert", OpenDate: "2025.03.01 18:00", Source: "interpark"}
	b := NoticeRecord{Title: "IU Concert", OpenDate: "2025.03.08 18:00", Source: "interpark"}
	if ComputeIdentity(a) == ComputeIdentity(b) {
		t.Fatal("a changed open date must produce a distinct identity")
	}
}

func TestComputeIdentity_MissingRequiredFields(t *testing.T) {
	for _, r := range []NoticeRecord{
		{Title: "", Source: "yes24", OpenDate: "x"},
		{Title: "   ", Source: "yes24"},
		{Title: "show", Source: ""},
	} {
		if got := ComputeIdentity(r); got != "" {
			t.Errorf("record %+v should have no identity, got %q", r, got)
		}
	}
}

func TestLinkHash(t *testing.T) {
	r := NoticeRecord{Title: "t", Source: "s", Link: "http://x"}
	h := LinkHash(r, 24)
	if len(h) != 24 {
		t.Fatalf("expected 24 hex chars, got %q", h)
	}
	if h != LinkHash(r, 24) {
		t.Fatal("link hash must be deterministic")
	}
	if LinkHash(NoticeRecord{Title: "t", Source: "s"}, 24) != "" {
		t.Fatal("missing link should yield empty hash")
	}
	if LinkHash(NoticeRecord{Title: "t", Source: "s", Link: LinkPlaceholder}, 24) != "" {
		t.Fatal("placeholder link should yield empty hash")
	}
}
