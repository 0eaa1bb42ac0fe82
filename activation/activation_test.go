package activation_test

import (
	"testing"

	"github.com/33TU/proxyd/activation"
)

func TestSource_InterfaceSatisfiedByBothTypes(t *testing.T) {
	var sources []activation.Source
	sources = append(sources, activation.Systemd{})
	sources = append(sources, activation.Launchd{Name: "com.example.proxyd"})

	for _, s := range sources {
		if _, err := s.Listeners(); err == nil {
			t.Errorf("%T: expected an error without a real activation environment", s)
		}
	}
}
