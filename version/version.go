package version

// Version is the current release of vigil.
const Version = "0.3.0"
