package pb

import (
	"testing"

	"google.golang.org/grpc"
)

func TestRegisterExposesAllMethods(t *testing.T) {
	s := grpc.NewServer()
	RegisterDarkPoolServiceServer(s, UnimplementedDarkPoolServiceServer{})

	info, ok := s.GetServiceInfo()["umbra.DarkPoolService"]
	if !ok {
		t.Fatal("DarkPoolService not registered")
	}

	want := map[string]bool{
		"SubmitOrder":    false,
		"CancelOrder":    false,
		"GetOrderStatus": false,
		"GetPoolStatus":  false,
	}
	for _, m := range info.Methods {
		if _, known := want[m.Name]; !known {
			t.Errorf("unexpected method %s", m.Name)
			continue
		}
		want[m.Name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("method %s not registered", name)
		}
	}
}
