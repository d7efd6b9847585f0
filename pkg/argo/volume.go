package argo

// PersistentVolumeClaim is a claim template created per workflow run.
type PersistentVolumeClaim struct {
	Metadata ObjectMeta                `json:"metadata" yaml:"metadata"`
	Spec     PersistentVolumeClaimSpec `json:"spec" yaml:"spec"`
}

// PersistentVolumeClaimSpec describes the requested storage.
type PersistentVolumeClaimSpec struct {
	AccessModes      []string             `json:"accessModes,omitempty" yaml:"accessModes,omitempty"`
	StorageClassName string               `json:"storageClassName,omitempty" yaml:"storageClassName,omitempty"`
	Resources        ResourceRequirements `json:"resources" yaml:"resources"`
}

// Volume is a named volume attached to the workflow pods. One source is set.
type Volume struct {
	Name                  string                             `json:"name" yaml:"name"`
	Secret                *SecretVolumeSource                `json:"secret,omitempty" yaml:"secret,omitempty"`
	ConfigMap             *ConfigMapVolumeSource             `json:"configMap,omitempty" yaml:"configMap,omitempty"`
	PersistentVolumeClaim *PersistentVolumeClaimVolumeSource `json:"persistentVolumeClaim,omitempty" yaml:"persistentVolumeClaim,omitempty"`
}

// SecretVolumeSource populates a volume from a Secret.
type SecretVolumeSource struct {
	SecretName string `json:"secretName" yaml:"secretName"`
}

// ConfigMapVolumeSource populates a volume from a ConfigMap.
type ConfigMapVolumeSource struct {
	Name        string      `json:"name" yaml:"name"`
	Items       []KeyToPath `json:"items,omitempty" yaml:"items,omitempty"`
	DefaultMode *int32      `json:"defaultMode,omitempty" yaml:"defaultMode,omitempty"`
	Optional    *bool       `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// KeyToPath projects a ConfigMap key onto a relative file path.
type KeyToPath struct {
	Key  string `json:"key" yaml:"key"`
	Path string `json:"path" yaml:"path"`
	Mode *int32 `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// PersistentVolumeClaimVolumeSource mounts an existing claim.
type PersistentVolumeClaimVolumeSource struct {
	ClaimName string `json:"claimName" yaml:"claimName"`
	ReadOnly  bool   `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
}
