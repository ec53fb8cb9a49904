package version

// Tag is overridden at build time:
// go build -ldflags="-X 'github.com/flokiorg/bitcoinswitch/pkg/version.Tag=v1.0.0'" ./cmd/http
var Tag = "dev"
