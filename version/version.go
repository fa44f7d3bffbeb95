package version

// Version is the rmdigit release.
const Version = "0.1.0"
