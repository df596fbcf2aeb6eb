package version

// Version is overridden at build time with -ldflags "-X metarisk/version.Version=...".
var Version = "dev"
