// Package volume builds the storage declarations attached to a workflow:
// per-run claim templates and volumes backed by secrets, config maps or
// existing claims.
package volume

import "github.com/me/argowf/pkg/argo"

// Common access modes.
const (
	ReadWriteOnce = "ReadWriteOnce"
	ReadOnlyMany  = "ReadOnlyMany"
	ReadWriteMany = "ReadWriteMany"
)

// KeyToPath maps one config map key onto a file path inside the volume.
// Mode is optional; zero leaves the volume default in effect.
type KeyToPath struct {
	Key  string
	Path string
	Mode int32
}

// ClaimTemplate declares a persistent volume claim created for each run.
// storageSize is a Kubernetes quantity such as "10Gi"; the engine validates it.
func ClaimTemplate(name, storageClassName, storageSize string, accessModes []string) argo.PersistentVolumeClaim {
	return argo.PersistentVolumeClaim{
		Metadata: argo.ObjectMeta{Name: name},
		Spec: argo.PersistentVolumeClaimSpec{
			AccessModes:      accessModes,
			StorageClassName: storageClassName,
			Resources: argo.ResourceRequirements{
				Requests: map[string]string{"storage": storageSize},
			},
		},
	}
}

// Secret returns a volume sourced from the named secret.
func Secret(name, secretName string) argo.Volume {
	return argo.Volume{
		Name:   name,
		Secret: &argo.SecretVolumeSource{SecretName: secretName},
	}
}

// ConfigMap returns a volume sourced from the named config map, projecting
// only the listed items.
func ConfigMap(name, configMapName string, items []KeyToPath, defaultMode int32, optional bool) argo.Volume {
	projected := make([]argo.KeyToPath, 0, len(items))
	for _, item := range items {
		kp := argo.KeyToPath{Key: item.Key, Path: item.Path}
		if item.Mode != 0 {
			mode := item.Mode
			kp.Mode = &mode
		}
		projected = append(projected, kp)
	}
	return argo.Volume{
		Name: name,
		ConfigMap: &argo.ConfigMapVolumeSource{
			Name:        configMapName,
			Items:       projected,
			DefaultMode: &defaultMode,
			Optional:    &optional,
		},
	}
}

// PersistentVolumeClaim returns a volume mounting an existing claim.
func PersistentVolumeClaim(name, claimName string) argo.Volume {
	return argo.Volume{
		Name:                  name,
		PersistentVolumeClaim: &argo.PersistentVolumeClaimVolumeSource{ClaimName: claimName},
	}
}
