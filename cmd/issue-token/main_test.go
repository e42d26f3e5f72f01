package main

import (
	"reflect"
	"testing"
)

func TestParsePermissions(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    []string
		wantErr bool
	}{
		{"codes", "attempts:grade, exams:read\n", []string{"attempts:grade", "exams:read"}, false},
		{"numbers", "1,6", []string{"attempts:grade", "exams:monitor"}, false},
		{"wildcard", "*", []string{"*"}, false},
		{"unknown code", "exams:delete", nil, true},
		{"number out of range", "7", nil, true},
		{"empty", " \n", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePermissions(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
