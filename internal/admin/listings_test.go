package admin

import (
	"strings"
	"testing"

	"github.com/futuretrendsent/zaryo-market/internal/model"
)

func strPtr(s string) *string { return &s }
func intPtr(v int64) *int64   { return &v }

func TestListingPatchValidate(t *testing.T) {
	cases := []struct {
		name    string
		patch   ListingPatch
		wantErr bool
	}{
		{"title only", ListingPatch{Title: strPtr("new title")}, false},
		{"price change", ListingPatch{Price: intPtr(250)}, false},
		{"reactivate", ListingPatch{Status: strPtr(model.ListingStatusActive)}, false},
		{"archive", ListingPatch{Status: strPtr(model.ListingStatusArchived)}, false},
		{"empty patch", ListingPatch{}, true},
		{"zero price", ListingPatch{Price: intPtr(0)}, true},
		{"negative price", ListingPatch{Price: intPtr(-10)}, true},
		{"sold status", ListingPatch{Status: strPtr(model.ListingStatusSold)}, true},
		{"bogus status", ListingPatch{Status: strPtr("banana")}, true},
	}
	for _, tc := range cases {
		err := tc.patch.validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr = %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestListingPatchBuildQuery(t *testing.T) {
	p := ListingPatch{
		Title:  strPtr("edited"),
		Price:  intPtr(300),
		Status: strPtr(model.ListingStatusActive),
	}
	query, args := p.buildQuery("l1")

	want := "UPDATE listings SET id = id, title = $1, price = $2, status = $3 WHERE id = $4"
	if query != want {
		t.Fatalf("query = %q, want %q", query, want)
	}
	if len(args) != 4 {
		t.Fatalf("args = %d, want 4", len(args))
	}
	if args[0] != "edited" || args[1] != int64(300) || args[2] != model.ListingStatusActive || args[3] != "l1" {
		t.Fatalf("args = %v", args)
	}
}

func TestListingPatchSkipsUnsetColumns(t *testing.T) {
	p := ListingPatch{Description: strPtr("fresh copy")}
	query, args := p.buildQuery("l2")

	for _, col := range []string{"title =", "price =", "category =", "location =", "status ="} {
		if strings.Contains(query, col) {
			t.Errorf("query touches unset column: %q in %q", col, query)
		}
	}
	if !strings.Contains(query, "description = $1") {
		t.Errorf("query = %q, missing description assignment", query)
	}
	if len(args) != 2 || args[1] != "l2" {
		t.Fatalf("args = %v", args)
	}
}
