package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// LoadPredictor reads the bundle at path and wraps it in a Predictor.
func LoadPredictor(path string) (*Predictor, error) {
	bundle, err := LoadBundle(path)
	if err != nil {
		return nil, err
	}
	predictor, err := NewPredictor(bundle)
	if err != nil {
		return nil, &ArtifactLoadError{Path: path, Err: err}
	}
	return predictor, nil
}

func bundleID(bundle *ModelBundle) (string, error) {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:16], nil
}
