package service_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
	"github.com/boddenberg/orders-dashboard-go/internal/service"
)

func candidate(name string) *domain.CandidateFile {
	return &domain.CandidateFile{
		Name: name,
		Size: 3,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("a;b")), nil },
	}
}

func TestAccept(t *testing.T) {
	cases := []struct {
		name   string
		file   *domain.CandidateFile
		accept bool
	}{
		{name: "lowercase", file: candidate("data.csv"), accept: true},
		{name: "uppercase", file: candidate("data.CSV"), accept: true},
		{name: "mixed case", file: candidate("Vendas.Csv"), accept: true},
		{name: "wrong extension", file: candidate("data.txt"), accept: false},
		{name: "csv inside name", file: candidate("data.csv.zip"), accept: false},
		{name: "no extension", file: candidate("csv"), accept: false},
		{name: "absent", file: nil, accept: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handle, err := service.Accept(tc.file)
			if tc.accept {
				if err != nil {
					t.Fatalf("expected accepted, got %v", err)
				}
				if handle.Name != tc.file.Name {
					t.Errorf("expected name %q, got %q", tc.file.Name, handle.Name)
				}
				return
			}
			var ve *domain.ErrValidation
			if !errors.As(err, &ve) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if handle != nil {
				t.Error("rejected file must not produce a handle")
			}
		})
	}
}

func TestIntake_RejectionClearsSelection(t *testing.T) {
	var in service.Intake

	if _, err := in.Select(candidate("orders.csv")); err != nil {
		t.Fatalf("expected accepted, got %v", err)
	}
	if h, ok := in.Selected(); !ok || h.Name != "orders.csv" {
		t.Fatalf("expected orders.csv selected, got %+v", h)
	}

	if _, err := in.Select(candidate("orders.txt")); err == nil {
		t.Fatal("expected rejection")
	}
	if _, ok := in.Selected(); ok {
		t.Error("rejected selection must clear the previous one")
	}

	in.Select(candidate("again.csv"))
	in.Select(nil)
	if _, ok := in.Selected(); ok {
		t.Error("absent file must clear the selection")
	}
}
