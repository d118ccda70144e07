package featureflag

type Flag string

const (
	// Skips the smoke test run after the sky map is built.
	FlagDisableSmokeTest Flag = "DISABLE_SMOKE_TEST"

	// Serves every HTTP lookup from the sky map.
	FlagDisableLookupCache Flag = "DISABLE_LOOKUP_CACHE"

	// Does not serve the WebSocket lookup stream.
	FlagDisableWebSocket Flag = "DISABLE_WEBSOCKET"

	// Looks tracts up by scanning every tract instead of using the index.
	FlagLinearTractScan Flag = "LINEAR_TRACT_SCAN"
)
