package models

import "testing"

func TestTaskFilter_ValidateDefaults(t *testing.T) {
	t.Parallel()

	f := TaskFilter{}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if f.Sort != SortByDueDate || f.Order != SortAsc || f.Limit != DefaultPageSize {
		t.Errorf("defaults not applied: %+v", f)
	}

	f = TaskFilter{Limit: MaxPageSize * 2}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if f.Limit != MaxPageSize {
		t.Errorf("Limit = %d, want %d", f.Limit, MaxPageSize)
	}
}

func TestTaskFilter_ValidateRejects(t *testing.T) {
	t.Parallel()

	bad := TaskStatus("done")
	tests := []struct {
		name   string
		filter TaskFilter
	}{
		{"status", TaskFilter{Status: &bad}},
		{"sort", TaskFilter{Sort: SortField("id; DROP TABLE tasks")}},
		{"order", TaskFilter{Order: SortOrder("sideways")}},
		{"offset", TaskFilter{Offset: -1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := tt.filter
			if err := f.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSortField_Column(t *testing.T) {
	t.Parallel()

	if got := SortField("anything").Column(); got != "due_date" {
		t.Errorf("unknown sort column = %q, want due_date", got)
	}
	if got := SortByCreatedDate.Column(); got != "created_at" {
		t.Errorf("created_date column = %q", got)
	}
	if SortDesc.Direction() != "DESC" || SortOrder("").Direction() != "ASC" {
		t.Error("unexpected direction keywords")
	}
}

func TestValidSettingKey(t *testing.T) {
	t.Parallel()

	for key, want := range map[string]bool{
		"language":       true,
		"items_per_page": true,
		"Theme":          false,
		"9lives":         false,
		"":               false,
		"a-b":            false,
	} {
		if got := ValidSettingKey(key); got != want {
			t.Errorf("ValidSettingKey(%q) = %v, want %v", key, got, want)
		}
	}
}
