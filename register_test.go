package sge_test

import (
	"testing"

	sge "github.com/sge-esporte/go-sge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistration() sge.RegisterData {
	return sge.RegisterData{
		Name:         "João da Silva",
		Email:        "joao@prefeitura.gov.br",
		Document:     "111.444.777-35",
		DocumentType: sge.DocumentCPF,
		Role:         sge.RoleDirigente,
	}
}

func TestRegisterDataValidateAccepts(t *testing.T) {
	assert.NoError(t, validRegistration().Validate())
}

func TestRegisterDataValidateNamesOffendingField(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*sge.RegisterData)
		field  string
	}{
		{"missing name", func(d *sge.RegisterData) { d.Name = "" }, "name"},
		{"missing email", func(d *sge.RegisterData) { d.Email = "" }, "email"},
		{"malformed email", func(d *sge.RegisterData) { d.Email = "not-an-email" }, "email"},
		{"missing document", func(d *sge.RegisterData) { d.Document = "" }, "document"},
		{"bad cpf checksum", func(d *sge.RegisterData) { d.Document = "111.444.777-36" }, "document"},
		{"repeated digit cpf", func(d *sge.RegisterData) { d.Document = "111.111.111-11" }, "document"},
		{"unknown document type", func(d *sge.RegisterData) { d.DocumentType = "passport" }, "documentType"},
		{"unknown role", func(d *sge.RegisterData) { d.Role = "superuser" }, "role"},
		{"manager role", func(d *sge.RegisterData) { d.Role = sge.RoleGestor }, "role"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := validRegistration()
			tc.mutate(&data)

			err := data.Validate()
			require.Error(t, err)
			assert.Equal(t, tc.field, sge.RegistrationErrorField(err))
		})
	}
}

func TestRegisterDataAcceptsRGWithoutChecksum(t *testing.T) {
	data := validRegistration()
	data.Document = "12.345.678-9"
	data.DocumentType = sge.DocumentRG
	assert.NoError(t, data.Validate())
}

func TestRegistrationErrorFieldOnForeignError(t *testing.T) {
	assert.Equal(t, "", sge.RegistrationErrorField(sge.ErrInvalidCredentials))
	assert.Equal(t, "", sge.RegistrationErrorField(nil))
}
