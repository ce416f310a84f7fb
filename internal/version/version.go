package version

// Version is the current release of the weaver
const Version = "1.0.0"
