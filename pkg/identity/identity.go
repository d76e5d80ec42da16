package identity

import (
	"encoding/json"
	"os"

	"github.com/benmeehan/fieldtrack/pkg/file"
)

// Identity holds the reporting employee's identifier and other metadata.
type Identity struct {
	EmployeeID string          `json:"employee_id,omitempty"`
	Name       string          `json:"name,omitempty"`
	OrgID      string          `json:"org_id,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// EmployeeInfoInterface defines methods for managing the employee identity.
type EmployeeInfoInterface interface {
	LoadEmployeeInfo() error
	SaveEmployeeID(employeeID string) error
	GetEmployeeID() string
	GetIdentity() *Identity
}

// EmployeeInfo manages the employee identity and its associated file operations.
type EmployeeInfo struct {
	IdentityFile string
	Identity     Identity
	fileOps      file.FileOperations
}

// NewEmployeeInfo initializes a new EmployeeInfo instance.
func NewEmployeeInfo(filePath string, fileOps file.FileOperations) EmployeeInfoInterface {
	return &EmployeeInfo{
		IdentityFile: filePath,
		fileOps:      fileOps,
		Identity:     Identity{},
	}
}

// LoadEmployeeInfo reads the identity file and populates the Identity field.
func (e *EmployeeInfo) LoadEmployeeInfo() error {
	err := e.fileOps.ReadJsonFile(e.IdentityFile, &e.Identity)
	if err != nil {
		if os.IsNotExist(err) {
			// File does not exist, initialize with default empty values
			e.Identity = Identity{}
			return nil
		}
		return err
	}

	return nil
}

// GetIdentity returns the current employee Identity.
func (e *EmployeeInfo) GetIdentity() *Identity {
	return &e.Identity
}

// GetEmployeeID returns the current employee ID.
func (e *EmployeeInfo) GetEmployeeID() string {
	return e.Identity.EmployeeID
}

// SaveEmployeeID updates the employee ID in the Identity field and writes it back to the file.
func (e *EmployeeInfo) SaveEmployeeID(employeeID string) error {
	e.Identity.EmployeeID = employeeID
	return e.fileOps.WriteJsonFile(e.IdentityFile, e.Identity)
}
