package core

// Artifact is one downloadable source archive.
type Artifact struct {
	Period
	// RemotePath is the location of the archive relative to the source base URL,
	// or an absolute URL.
	RemotePath string
}

// LocalArtifact is an Artifact that has been fetched to local disk.
// The file at LocalPath is owned by the pipeline run and deleted after processing.
type LocalArtifact struct {
	Artifact
	LocalPath string
}
