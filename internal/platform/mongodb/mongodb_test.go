package mongodb

import (
	"context"
	"testing"
)

func TestDatabaseName(t *testing.T) {
	cases := map[string]string{
		"mongodb://localhost:27017":                   "comments",
		"mongodb://localhost:27017/":                  "comments",
		"mongodb://localhost:27017/threads":           "threads",
		"mongodb://u:p@db1,db2/threads?replicaSet=rs": "threads",
	}
	for uri, want := range cases {
		got, err := DatabaseName(uri)
		if err != nil {
			t.Fatalf("%s: %v", uri, err)
		}
		if got != want {
			t.Fatalf("%s: expected %q, got %q", uri, want, got)
		}
	}
}

func TestDatabaseName_Invalid(t *testing.T) {
	if _, err := DatabaseName("http://not-mongo"); err == nil {
		t.Fatal("expected error for non-mongo scheme")
	}
}

func TestOpen_RequiresURI(t *testing.T) {
	if _, _, err := Open(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for empty URI")
	}
}
