package sge

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Validate checks a registration submission. It returns an
// InvalidRegistrationData error naming the first offending field, in
// declaration order, so the form can focus the right input.
func (r RegisterData) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Document, validation.Required, validation.By(r.validateDocument)),
		validation.Field(&r.DocumentType, validation.Required, validation.In(DocumentCPF, DocumentRG)),
		validation.Field(&r.Role, validation.Required, validation.By(validateRegistrableRole)),
	)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validation.Errors)
	if !ok {
		return InvalidRegistrationData("form", err.Error())
	}

	for _, field := range []string{"name", "email", "document", "documentType", "role"} {
		if fieldErr, found := fieldErrors[field]; found {
			return InvalidRegistrationData(field, fieldErr.Error())
		}
	}

	return InvalidRegistrationData("form", err.Error())
}

// validateDocument applies the CPF checksum when the document is
// typed as CPF. RG numbers vary by state and only require presence.
func (r RegisterData) validateDocument(value any) error {
	document, _ := value.(string)
	if r.DocumentType != DocumentCPF {
		return nil
	}
	if !ValidCPF(document) {
		return errors.New("CPF inválido")
	}
	return nil
}

func validateRegistrableRole(value any) error {
	role, _ := value.(string)
	for _, r := range RegistrableRoles() {
		if r == role {
			return nil
		}
	}
	return errors.New("cargo inválido")
}

// normalized returns a copy ready for storage: canonical email and,
// for CPF documents, the standard digit grouping.
func (r RegisterData) normalized() RegisterData {
	r.Email = NormalizeEmail(r.Email)
	if r.DocumentType == DocumentCPF {
		r.Document = FormatCPF(r.Document)
	}
	return r
}
