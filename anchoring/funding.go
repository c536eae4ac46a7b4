package anchoring

import "fmt"

// FundingTx records a raw Bitcoin transaction that at least one validator
// has attested as paying the current anchoring address out of band (§4.5);
// it becomes spendable by proposals once its attestations reach quorum. It
// supplements the bare raw-tx bytes of spec.md §3 with the fields the
// proposal builder and the AddFunds quorum check need: which output pays
// the anchoring address, and which validators have already attested to it.
type FundingTx struct {
	// Raw is the full wire-serialized Bitcoin transaction.
	Raw []byte
	// OutputIndex is the index of the output paying the current anchoring
	// address, as observed by the validator who first confirmed it via
	// Bitcoin RPC.
	OutputIndex uint32
	// AttestedBy holds the validator indices that have submitted a
	// matching AddFunds transaction for this funding tx.
	AttestedBy []uint16
}

// HasQuorum reports whether at least threshold distinct validators have
// attested to this funding transaction (§6 AddFunds).
func (f FundingTx) HasQuorum(threshold int) bool {
	seen := make(map[uint16]struct{}, len(f.AttestedBy))
	for _, idx := range f.AttestedBy {
		seen[idx] = struct{}{}
	}
	return len(seen) >= threshold
}

// Encode serializes f into its wire form: raw-len(4) | raw | output-index(4)
// | n-attestors(2) | attestors[2 each].
func (f FundingTx) Encode() ([]byte, error) {
	buf := make([]byte, 0, 8+len(f.Raw)+2+len(f.AttestedBy)*2)
	buf = appendUint32(buf, uint32(len(f.Raw)))
	buf = append(buf, f.Raw...)
	buf = appendUint32(buf, f.OutputIndex)
	buf = appendUint16(buf, uint16(len(f.AttestedBy)))
	for _, v := range f.AttestedBy {
		buf = appendUint16(buf, v)
	}
	return buf, nil
}

// EncodeFundingList serializes an ordered list of funding transactions,
// used to persist the mutable funding pool that accumulates as AddFunds
// transactions land (§4.5) independently of the versioned AnchoringConfig
// snapshots in config_history.
func EncodeFundingList(list []FundingTx) ([]byte, error) {
	buf := appendUint16(nil, uint16(len(list)))
	for _, f := range list {
		encoded, err := f.Encode()
		if err != nil {
			return nil, err
		}
		buf = appendUint32(buf, uint32(len(encoded)))
		buf = append(buf, encoded...)
	}
	return buf, nil
}

// DecodeFundingList parses the wire form produced by EncodeFundingList.
func DecodeFundingList(data []byte) ([]FundingTx, error) {
	r := byteReader{buf: data}
	n, err := r.uint16()
	if err != nil {
		return nil, err
	}
	list := make([]FundingTx, n)
	for i := range list {
		length, err := r.uint32()
		if err != nil {
			return nil, err
		}
		raw, err := r.bytes(int(length))
		if err != nil {
			return nil, err
		}
		ftx, err := DecodeFundingTx(raw)
		if err != nil {
			return nil, err
		}
		list[i] = ftx
	}
	if !r.exhausted() {
		return nil, fmt.Errorf("%w: trailing bytes after funding list", ErrInvalidEncoding)
	}
	return list, nil
}

// DecodeFundingTx parses the wire form produced by Encode.
func DecodeFundingTx(data []byte) (FundingTx, error) {
	var f FundingTx
	r := byteReader{buf: data}

	rawLen, err := r.uint32()
	if err != nil {
		return f, err
	}
	raw, err := r.bytes(int(rawLen))
	if err != nil {
		return f, err
	}
	f.Raw = append([]byte(nil), raw...)

	if f.OutputIndex, err = r.uint32(); err != nil {
		return f, err
	}

	nAttestors, err := r.uint16()
	if err != nil {
		return f, err
	}
	f.AttestedBy = make([]uint16, nAttestors)
	for i := range f.AttestedBy {
		if f.AttestedBy[i], err = r.uint16(); err != nil {
			return f, err
		}
	}

	if !r.exhausted() {
		return f, fmt.Errorf("%w: trailing bytes after funding tx", ErrInvalidEncoding)
	}
	return f, nil
}
