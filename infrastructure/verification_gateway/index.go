package verificationgateway

import (
	"os"

	"shiftguard.io/infrastructure/network"
	remote_verification_gateway "shiftguard.io/infrastructure/verification_gateway/remote"
	verification_gateway_types "shiftguard.io/infrastructure/verification_gateway/types"
)

var Gateway verification_gateway_types.VerificationGatewayType

func InitialiseVerificationGateway() {
	Gateway = &remote_verification_gateway.RemoteVerificationGateway{
		Network: &network.NetworkController{
			BaseUrl: os.Getenv("VERIFICATION_SERVICE_URL"),
		},
		API_KEY: os.Getenv("VERIFICATION_SERVICE_API_KEY"),
	}
}
