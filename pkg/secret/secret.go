// Package secret envuelve material sensible (contraseñas, llaves privadas) en un buffer
// propio que se borra explícitamente con Destroy.
package secret

import "crypto/subtle"

const redacted = "[REDACTED]"

// Secret es un buffer de bytes sensibles. El valor cero y el puntero nil son válidos (vacíos).
type Secret struct {
	b []byte
}

// New copia b en un buffer propio. El caller sigue siendo dueño de b.
func New(b []byte) *Secret {
	if len(b) == 0 {
		return &Secret{}
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Secret{b: cp}
}

// FromString crea un Secret a partir de un string. El string original no puede borrarse;
// el caller debe descartarlo lo antes posible.
func FromString(s string) *Secret {
	return New([]byte(s))
}

// Bytes devuelve el buffer interno (sin copia). No retener después de Destroy.
func (s *Secret) Bytes() []byte {
	if s == nil {
		return nil
	}
	return s.b
}

// Len devuelve la longitud en bytes.
func (s *Secret) Len() int {
	if s == nil {
		return 0
	}
	return len(s.b)
}

// IsEmpty indica si no hay contenido.
func (s *Secret) IsEmpty() bool { return s.Len() == 0 }

// Equal compara en tiempo constante.
func (s *Secret) Equal(other []byte) bool {
	return subtle.ConstantTimeCompare(s.Bytes(), other) == 1
}

// Destroy pone a cero el buffer y lo libera. Es seguro llamarlo varias veces o sobre nil.
func (s *Secret) Destroy() {
	if s == nil {
		return
	}
	Wipe(s.b)
	s.b = nil
}

// String evita que el contenido termine en logs o en fmt.
func (s *Secret) String() string { return redacted }

// GoString idem para %#v.
func (s *Secret) GoString() string { return redacted }

// MarshalJSON nunca serializa el contenido.
func (s *Secret) MarshalJSON() ([]byte, error) { return []byte(`"` + redacted + `"`), nil }

// Wipe sobrescribe b con ceros.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
