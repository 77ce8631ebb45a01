package stage_test

import (
	"encoding/json"
	"testing"

	"github.com/vango-dev/filestage/pkg/policy"
	"github.com/vango-dev/filestage/pkg/stage"
)

func TestProject_Single(t *testing.T) {
	empty := stage.Project(nil, stage.Single)
	if empty.IsList() || empty.Present() {
		t.Error("empty single value must be an absence, not a list")
	}
	if _, ok := empty.File(); ok {
		t.Error("File() on absence should report false")
	}
	if empty.Files() != nil {
		t.Error("Files() on a single value should be nil")
	}

	v := stage.Project([]stage.Entry{{ID: 1, File: policy.File{Name: "a.png"}}}, stage.Single)
	f, ok := v.File()
	if !ok || f.Name != "a.png" || v.IsList() {
		t.Errorf("single value = %+v", v)
	}
}

func TestProject_Multi(t *testing.T) {
	empty := stage.Project(nil, stage.Multi)
	if !empty.IsList() || !empty.Present() || len(empty.Files()) != 0 {
		t.Error("empty multi value must be an empty list")
	}

	v := stage.Project([]stage.Entry{
		{ID: 1, File: policy.File{Name: "a"}},
		{ID: 2, File: policy.File{Name: "b"}},
	}, stage.Multi)
	files := v.Files()
	if len(files) != 2 || files[0].Name != "a" || files[1].Name != "b" {
		t.Errorf("Files() = %+v", files)
	}
	if _, ok := v.File(); ok {
		t.Error("File() on a list should report false")
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		v    stage.Value
		want string
	}{
		{"single absent", stage.Project(nil, stage.Single), `null`},
		{"multi empty", stage.Project(nil, stage.Multi), `[]`},
		{
			"single present",
			stage.Project([]stage.Entry{{File: policy.File{Name: "a.png", MIMEType: "image/png", Size: 3}}}, stage.Single),
			`{"name":"a.png","type":"image/png","size":3}`,
		},
		{
			"multi list",
			stage.Project([]stage.Entry{{File: policy.File{Name: "a", MIMEType: "text/plain", Size: 1}}}, stage.Multi),
			`[{"name":"a","type":"text/plain","size":1}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.v)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("json = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestIDRoundTrip(t *testing.T) {
	id, err := stage.ParseID(stage.ID(42).String())
	if err != nil || id != 42 {
		t.Errorf("ParseID = %v, %v", id, err)
	}
	if _, err := stage.ParseID("abc"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestModeOf(t *testing.T) {
	if stage.ModeOf(true) != stage.Multi || stage.ModeOf(false) != stage.Single {
		t.Error("ModeOf mapping wrong")
	}
	if stage.Multi.String() != "multi" || stage.Single.String() != "single" {
		t.Error("Mode strings wrong")
	}
}
