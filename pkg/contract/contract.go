// Package contract defines the data contract a pipeline run executes
// against: the problem being solved, the target field, and the declared
// feature fields. A contract is validated once, hashed for traceability,
// and then carried read-only through the run.
package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atlasflow/engine/pkg/util"
)

type (
	// ProblemType classifies the modeling problem a contract describes
	ProblemType string

	// FieldRole describes how a feature participates in modeling
	FieldRole string

	// FieldType is the declared primitive type of a field
	FieldType string

	// Target describes the field a pipeline trains against
	Target struct {
		Name string    `json:"name"`
		Type FieldType `json:"type"`
	}

	// Feature describes one declared input field
	Feature struct {
		Name      string    `json:"name"`
		Role      FieldRole `json:"role"`
		Type      FieldType `json:"type"`
		Required  bool      `json:"required"`
		AllowNull bool      `json:"allow_null"`
	}

	// Contract is a validated data contract
	Contract struct {
		Version  string      `json:"version"`
		Problem  string      `json:"problem"`
		Type     ProblemType `json:"type"`
		Target   Target      `json:"target"`
		Features []Feature   `json:"features"`
	}
)

const (
	ProblemClassification ProblemType = "classification"
	ProblemRegression     ProblemType = "regression"
	ProblemClustering     ProblemType = "clustering"
	ProblemOther          ProblemType = "other"
)

const (
	RoleNumerical   FieldRole = "numerical"
	RoleCategorical FieldRole = "categorical"
	RoleBoolean     FieldRole = "boolean"
	RoleText        FieldRole = "text"
	RoleOther       FieldRole = "other"
)

const (
	TypeInt      FieldType = "int"
	TypeFloat    FieldType = "float"
	TypeBool     FieldType = "bool"
	TypeString   FieldType = "string"
	TypeCategory FieldType = "category"
)

var (
	ErrVersionEmpty        = errors.New("contract version empty")
	ErrProblemEmpty        = errors.New("problem name empty")
	ErrInvalidProblemType  = errors.New("invalid problem type")
	ErrTargetNameEmpty     = errors.New("target name empty")
	ErrInvalidTargetType   = errors.New("invalid target type")
	ErrNoFeatures          = errors.New("at least one feature is required")
	ErrFeatureNameEmpty    = errors.New("feature name empty")
	ErrDuplicateFeature    = errors.New("duplicate feature name")
	ErrInvalidFeatureRole  = errors.New("invalid feature role")
	ErrInvalidFeatureType  = errors.New("invalid feature type")
	ErrTargetIsFeature     = errors.New("target also declared as feature")
)

var (
	validProblemTypes = util.SetOf(
		ProblemClassification,
		ProblemRegression,
		ProblemClustering,
		ProblemOther,
	)

	validFieldRoles = util.SetOf(
		RoleNumerical,
		RoleCategorical,
		RoleBoolean,
		RoleText,
		RoleOther,
	)

	validFieldTypes = util.SetOf(
		TypeInt,
		TypeFloat,
		TypeBool,
		TypeString,
		TypeCategory,
	)
)

// Validate checks the contract for structural correctness
func (c *Contract) Validate() error {
	if c.Version == "" {
		return ErrVersionEmpty
	}
	if c.Problem == "" {
		return ErrProblemEmpty
	}
	if !validProblemTypes.Contains(c.Type) {
		return fmt.Errorf("%w: %s", ErrInvalidProblemType, c.Type)
	}
	if err := c.validateTarget(); err != nil {
		return err
	}
	return c.validateFeatures()
}

func (c *Contract) validateTarget() error {
	if c.Target.Name == "" {
		return ErrTargetNameEmpty
	}
	if !validFieldTypes.Contains(c.Target.Type) {
		return fmt.Errorf("%w: %s", ErrInvalidTargetType, c.Target.Type)
	}
	return nil
}

func (c *Contract) validateFeatures() error {
	if len(c.Features) == 0 {
		return ErrNoFeatures
	}

	seen := util.Set[string]{}
	for _, f := range c.Features {
		if f.Name == "" {
			return ErrFeatureNameEmpty
		}
		if seen.Contains(f.Name) {
			return fmt.Errorf("%w: %s", ErrDuplicateFeature, f.Name)
		}
		seen.Add(f.Name)

		if f.Name == c.Target.Name {
			return fmt.Errorf("%w: %s", ErrTargetIsFeature, f.Name)
		}
		if !validFieldRoles.Contains(f.Role) {
			return fmt.Errorf("%w: %s (%s)",
				ErrInvalidFeatureRole, f.Role, f.Name)
		}
		if !validFieldTypes.Contains(f.Type) {
			return fmt.Errorf("%w: %s (%s)",
				ErrInvalidFeatureType, f.Type, f.Name)
		}
	}
	return nil
}

// Feature returns the declared feature with the given name
func (c *Contract) Feature(name string) (*Feature, bool) {
	for i := range c.Features {
		if c.Features[i].Name == name {
			return &c.Features[i], true
		}
	}
	return nil, false
}

// RequiredFeatures returns the names of all required features
func (c *Contract) RequiredFeatures() []string {
	var names []string
	for _, f := range c.Features {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Hash computes the canonical SHA-256 of the contract. Used for manifest
// traceability and divergence detection between runs
func (c *Contract) Hash() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
