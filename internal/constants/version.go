package constants

// Version is the fieldtrack API version reported by the health endpoint.
// Reporter agents compare it against their supported range before starting.
const Version = "1.2.0"
