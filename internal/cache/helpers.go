package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// GetETag returns a hash of the data for ETag support
func GetETag(data interface{}) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return `"` + hex.EncodeToString(hash[:]) + `"`
}
