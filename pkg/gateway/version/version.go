package version

const Gateway = "v0.3.0"
