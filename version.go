package dgwatch

// Version is the release of the dgwatch module and CLI.
var Version = "0.1.0"
