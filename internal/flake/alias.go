package flake

import "encoding/json"

// aliases holds the snake_case spellings that older lock files use for a few
// attributes. When present they take the place of the camelCase attribute.
type aliases struct {
	LastModified *int64  `json:"last_modified"`
	NarHash      *string `json:"nar_hash"`
	NodeType     *string `json:"node_type"`
}

func (a aliases) applyType(nodeType *string) {
	if a.NodeType != nil {
		*nodeType = *a.NodeType
	}
}

func (a aliases) applyLocked(lastModified *int64, narHash, nodeType *string) {
	if a.LastModified != nil {
		*lastModified = *a.LastModified
	}
	if a.NarHash != nil {
		*narHash = *a.NarHash
	}
	a.applyType(nodeType)
}

func (l *RepoLocked) UnmarshalJSON(data []byte) error {
	type plain RepoLocked
	var aux struct {
		plain
		aliases
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*l = RepoLocked(aux.plain)
	aux.applyLocked(&l.LastModified, &l.NarHash, &l.Type)
	return nil
}

func (l *PathLocked) UnmarshalJSON(data []byte) error {
	type plain PathLocked
	var aux struct {
		plain
		aliases
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*l = PathLocked(aux.plain)
	aux.applyLocked(&l.LastModified, &l.NarHash, &l.Type)
	return nil
}

func (l *TarballLocked) UnmarshalJSON(data []byte) error {
	type plain TarballLocked
	var aux struct {
		plain
		aliases
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*l = TarballLocked(aux.plain)
	if aux.aliases.LastModified != nil {
		l.LastModified = aux.aliases.LastModified
	}
	if aux.aliases.NarHash != nil {
		l.NarHash = *aux.aliases.NarHash
	}
	aux.applyType(&l.Type)
	return nil
}

func (o *RepoOriginal) UnmarshalJSON(data []byte) error {
	type plain RepoOriginal
	var aux struct {
		plain
		aliases
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*o = RepoOriginal(aux.plain)
	aux.applyType(&o.Type)
	return nil
}

func (o *IndirectOriginal) UnmarshalJSON(data []byte) error {
	type plain IndirectOriginal
	var aux struct {
		plain
		aliases
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*o = IndirectOriginal(aux.plain)
	aux.applyType(&o.Type)
	return nil
}

func (o *PathOriginal) UnmarshalJSON(data []byte) error {
	type plain PathOriginal
	var aux struct {
		plain
		aliases
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*o = PathOriginal(aux.plain)
	aux.applyType(&o.Type)
	return nil
}

func (o *TarballOriginal) UnmarshalJSON(data []byte) error {
	type plain TarballOriginal
	var aux struct {
		plain
		aliases
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*o = TarballOriginal(aux.plain)
	aux.applyType(&o.Type)
	return nil
}
