package memory

import (
	"testing"

	"github.com/NordCoder/Uptimer/internal/repository/gatewaytest"
)

func TestGateway(t *testing.T) {
	gatewaytest.Run(t, NewGateway())
}
