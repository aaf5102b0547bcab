package schemalift

// Version is the release version of the schemalift module. Embed it in
// your own commands to surface the build version.
var Version = "v0.1.0"
